package mediagroup

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// File references one image inside a Telegram album.
type File struct {
	FileID    string
	Filename  string
	MessageID int
}

type Item struct {
	ChatID       int64
	MessageID    int
	MediaGroupID string
	Caption      string
	File         File
}

// Group is a complete album: every page shares the one caption the user
// typed, and replies are attached to the first message.
type Group struct {
	ChatID    int64
	MessageID int
	Caption   string
	Files     []File
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

// Aggregator collects album items until no new item arrived for Debounce.
type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	groups   map[string]*pendingGroup
}

type pendingGroup struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.File.FileID == "" {
		return
	}

	if item.File.MessageID == 0 {
		item.File.MessageID = item.MessageID
	}
	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{
			group: Group{
				ChatID:    item.ChatID,
				MessageID: item.MessageID,
				Caption:   item.Caption,
				Files:     []File{item.File},
			},
		}
		a.groups[key] = pg
	} else {
		pg.group.Files = append(pg.group.Files, item.File)
		if item.Caption != "" {
			pg.group.Caption = item.Caption
		}
		if item.MessageID != 0 && (pg.group.MessageID == 0 || item.MessageID < pg.group.MessageID) {
			pg.group.MessageID = item.MessageID
		}
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending returns the number of albums still waiting for their debounce.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	group := pg.group
	onFlush := a.onFlush
	a.mu.Unlock()

	// Updates are handled concurrently, so pages may arrive out of album order.
	sort.SliceStable(group.Files, func(i, j int) bool {
		return group.Files[i].MessageID < group.Files[j].MessageID
	})

	if onFlush != nil {
		onFlush(group)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
