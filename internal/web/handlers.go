package web

import (
	"encoding/base64"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-extractor/internal/invoice"
)

type pageData struct {
	Title        string
	Header       string
	Accept       string
	Question     string
	ImageDataURL template.URL
	Response     string
	HasResponse  bool
	Error        string
}

func newPage() pageData {
	return pageData{
		Title:  "Multilanguage Invoice Extractor",
		Header: "Gemini Multi Language Invoice Extractor",
		Accept: invoice.AcceptExtensions,
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newPage())
}

func (s *Server) handleSubmit(c *gin.Context) {
	page := newPage()

	sub, err := readSubmission(c)
	if err != nil {
		page.Error = err.Error()
		c.HTML(http.StatusBadRequest, "index.html", page)
		return
	}
	page.Question = sub.Question
	page.ImageDataURL = previewURL(sub.Upload)

	resp, err := s.submitter.Submit(c.Request.Context(), sub)
	if err != nil {
		status, _ := s.errorStatus(c, err)
		page.Error = err.Error()
		c.HTML(status, "index.html", page)
		return
	}

	page.Response = resp.Text
	page.HasResponse = true
	c.HTML(http.StatusOK, "index.html", page)
}

type askResponse struct {
	Response string `json:"response"`
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleAPIAsk(c *gin.Context) {
	sub, err := readSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: err.Error(), Kind: "input"})
		return
	}

	resp, err := s.submitter.Submit(c.Request.Context(), sub)
	if err != nil {
		status, kind := s.errorStatus(c, err)
		c.JSON(status, apiError{Error: err.Error(), Kind: kind})
		return
	}

	c.JSON(http.StatusOK, askResponse{Response: resp.Text})
}

// readSubmission collects the form as it was at submit time. A missing file
// is not an error here; the service decides what that means.
func readSubmission(c *gin.Context) (invoice.Submission, error) {
	sub := invoice.Submission{Question: c.PostForm("input")}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return sub, nil
	case err != nil:
		return sub, errors.New("invalid multipart form")
	}

	f, err := fh.Open()
	if err != nil {
		return sub, errors.New("failed to read image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return sub, errors.New("failed to read image")
	}

	sub.Upload = &invoice.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}
	return sub, nil
}

func (s *Server) errorStatus(c *gin.Context, err error) (int, string) {
	if invoice.IsInputError(err) {
		return http.StatusBadRequest, "input"
	}

	s.logger.Error("submit failed", "request_id", c.GetString("request_id"), "err", err)
	if se, ok := invoice.AsServiceError(err); ok {
		return http.StatusBadGateway, string(se.Kind)
	}
	return http.StatusInternalServerError, "internal"
}

func previewURL(up *invoice.Upload) template.URL {
	if up == nil || len(up.Data) == 0 {
		return ""
	}
	mimeType := invoice.DetectMimeType(up.ContentType, up.Data)
	if !invoice.AllowedMimeType(mimeType) {
		return ""
	}
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(up.Data))
}
