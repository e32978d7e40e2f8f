// Package mt provides machine-translation providers implementing the
// tm.Translator contract.
package mt

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/seglab/xliffcat/internal/tm"
)

const myMemoryAPI = "https://api.mymemory.translated.net/get"

// MyMemory is the translated.net machine-translation provider. An API key
// is optional; the MYMEMORY_API_KEY environment variable raises the free
// request quota when set.
type MyMemory struct {
	apiKey  string
	srcLang string
	tgtLang string
	client  *http.Client
}

// NewMyMemory creates a provider for the given language pair.
func NewMyMemory(srcLang, tgtLang string) *MyMemory {
	return &MyMemory{
		apiKey:  os.Getenv("MYMEMORY_API_KEY"),
		srcLang: srcLang,
		tgtLang: tgtLang,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus int `json:"responseStatus"`
}

// Translate fetches one alternative for the given plain source text.
func (m *MyMemory) Translate(source string) ([]tm.Translation, error) {
	params := url.Values{}
	params.Set("q", source)
	params.Set("langpair", m.srcLang+"|"+m.tgtLang)
	if m.apiKey != "" {
		params.Set("key", m.apiKey)
	}

	resp, err := m.client.Get(myMemoryAPI + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("mymemory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mymemory: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("mymemory response: %w", err)
	}
	var parsed myMemoryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("mymemory response: %w", err)
	}
	if parsed.ResponseStatus != 200 {
		return nil, fmt.Errorf("mymemory: status %d", parsed.ResponseStatus)
	}

	return []tm.Translation{{
		Key:     "MyMemory",
		SrcLang: m.srcLang,
		TgtLang: m.tgtLang,
		Target:  parsed.ResponseData.TranslatedText,
	}}, nil
}
