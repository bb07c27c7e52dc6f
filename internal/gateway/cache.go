package gateway

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// completionCache memoizes successful completions keyed by model and
// prompt digest. Useful when re-running a pipeline against the same
// prompt while iterating on downstream stages.
type completionCache struct {
	inner *lru.Cache[string, string]
}

func newCompletionCache(size int) (*completionCache, error) {
	inner, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &completionCache{inner: inner}, nil
}

func (c *completionCache) get(model, prompt string) (string, bool) {
	return c.inner.Get(cacheKey(model, prompt))
}

func (c *completionCache) add(model, prompt, text string) {
	c.inner.Add(cacheKey(model, prompt), text)
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return model + ":" + hex.EncodeToString(sum[:])
}
