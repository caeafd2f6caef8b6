// internal/words/words.go
package words

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jason-s-yu/codenames/internal/board"
)

//go:embed lists/*.txt
var embedded embed.FS

var (
	// ErrUnknownLanguage is returned when no list is registered for a language.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrNotEnoughWords is returned when a list is shorter than the requested sample.
	ErrNotEnoughWords = errors.New("not enough words")
)

// Bank holds one word list per language. It is safe for concurrent use; lists
// are never mutated after they are loaded.
type Bank struct {
	mu    sync.RWMutex
	lists map[string][]string
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{lists: make(map[string][]string)}
}

// Default returns a bank populated with the shipped word lists.
func Default() (*Bank, error) {
	b := NewBank()
	if err := b.LoadFS(embedded, "lists"); err != nil {
		return nil, err
	}
	return b, nil
}

// NormalizeLanguage maps a BCP 47 tag onto the key used for word lists, so
// "EN-us" and "en" select the same list.
func NormalizeLanguage(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// LoadDir reads every <lang>.txt file in dir. A list for a language that is
// already present replaces it.
func (b *Bank) LoadDir(dir string) error {
	return b.LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every <lang>.txt file under root in fsys.
func (b *Bank) LoadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("reading word lists: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".txt" {
			continue
		}
		f, err := fsys.Open(path.Join(root, e.Name()))
		if err != nil {
			return fmt.Errorf("opening %s: %w", e.Name(), err)
		}
		err = b.Load(strings.TrimSuffix(e.Name(), ".txt"), f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Load registers the list read from r under lang. Blank lines and duplicates
// (compared case-insensitively) are skipped.
func (b *Bank) Load(lang string, r io.Reader) error {
	key, err := NormalizeLanguage(lang)
	if err != nil {
		return err
	}

	fold := cases.Fold()
	seen := make(map[string]struct{})
	var list []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" {
			continue
		}
		k := fold.String(w)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		list = append(list, w)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s list: %w", key, err)
	}

	b.mu.Lock()
	b.lists[key] = list
	b.mu.Unlock()
	return nil
}

// Languages lists the loaded language keys in sorted order.
func (b *Bank) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.lists))
	for k := range b.lists {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a list exists for lang.
func (b *Bank) Has(lang string) bool {
	key, err := NormalizeLanguage(lang)
	if err != nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.lists[key]
	return ok
}

// Sample draws count distinct words for lang, avoiding anything in exclude.
// When the list minus exclude is too short the full list is used instead, so
// consecutive rounds may repeat words on small lists.
func (b *Bank) Sample(lang string, count int, exclude []string, rng board.Rand) ([]string, error) {
	key, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}
	b.mu.RLock()
	list, ok := b.lists[key]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	pool := without(list, exclude)
	if len(pool) < count {
		pool = append([]string(nil), list...)
	}
	if len(pool) < count {
		return nil, fmt.Errorf("%w: %q has %d, need %d", ErrNotEnoughWords, key, len(pool), count)
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:count:count], nil
}

// without returns a fresh copy of list minus the entries in exclude.
func without(list, exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, w := range exclude {
		skip[w] = struct{}{}
	}
	out := make([]string, 0, len(list))
	for _, w := range list {
		if _, ok := skip[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}
