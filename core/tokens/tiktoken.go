package tokens

import (
	"fmt"
	"sync"

	"github.com/maypok86/otter"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const defaultCacheSize = 16

var loaderOnce sync.Once

// Tiktoken counts tokens with OpenAI BPE encodings. Ranks are loaded from
// data embedded in the binary, so counting never touches the network.
type Tiktoken struct {
	cache otter.Cache[string, *tiktoken.Tiktoken]
}

// NewTiktoken creates a counter that keeps up to size encodings loaded.
func NewTiktoken(size int) (*Tiktoken, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	cache, err := otter.MustBuilder[string, *tiktoken.Tiktoken](size).Build()
	if err != nil {
		return nil, fmt.Errorf("building encoding cache: %w", err)
	}
	return &Tiktoken{cache: cache}, nil
}

// Count implements Counter. name is resolved as a model first and then
// as an encoding name such as "cl100k_base".
func (t *Tiktoken) Count(text, name string) (int, error) {
	enc, err := t.encoding(name)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) encoding(name string) (*tiktoken.Tiktoken, error) {
	if enc, ok := t.cache.Get(name); ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		var encErr error
		if enc, encErr = tiktoken.GetEncoding(name); encErr != nil {
			return nil, fmt.Errorf("resolving encoding for %q: %w", name, err)
		}
	}
	t.cache.Set(name, enc)
	return enc, nil
}

// Close releases the encoding cache.
func (t *Tiktoken) Close() {
	t.cache.Close()
}
