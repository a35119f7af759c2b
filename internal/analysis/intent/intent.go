// Package intent classifies idle-state utterances into the structured intents
// the dialogue engine can act on without the LLM.
package intent

import "strings"

// Intent labels what the customer appears to be asking for.
type Intent string

const (
	Meeting     Intent = "meeting"
	Order       Intent = "order"
	StoreInfo   Intent = "store_info"
	ProductList Intent = "product_list"
	Return      Intent = "return"
	None        Intent = "none"
)

// keywordBuckets are evaluated in priority order; the first bucket containing
// a keyword found in the utterance decides. Later buckets are unreachable for
// that turn once an earlier one fires.
var keywordBuckets = []struct {
	intent   Intent
	keywords []string
}{
	{Meeting, []string{"meeting"}},
	{Order, []string{"order"}},
	{StoreInfo, []string{"about your brand", "tell me about"}},
	{ProductList, []string{"product", "list"}},
	{Return, []string{"return"}},
}

// Detect scans the utterance for intent keywords. Substring tests on the
// lowercased text, nothing smarter.
func Detect(utterance string) Intent {
	normalized := strings.TrimSpace(strings.ToLower(utterance))
	if normalized == "" {
		return None
	}

	for _, bucket := range keywordBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(normalized, keyword) {
				return bucket.intent
			}
		}
	}
	return None
}
