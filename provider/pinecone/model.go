package pinecone

import "time"

// ModelInfo describes a model in the OpenAI list-models format.
type ModelInfo struct {
	ID         string  `json:"id"`
	Object     string  `json:"object"`
	Created    int64   `json:"created"`
	OwnedBy    string  `json:"owned_by"`
	Permission []any   `json:"permission"`
	Root       string  `json:"root"`
	Parent     *string `json:"parent"`
}

type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// Models reports the assistant as the only available model. created is expressed in
// milliseconds since the epoch.
func Models(assistant string, created time.Time) ModelList {
	return ModelList{
		Object: "list",
		Data: []ModelInfo{{
			ID:         assistant,
			Object:     "model",
			Created:    created.UnixMilli(),
			OwnedBy:    "pinecone",
			Permission: []any{},
			Root:       assistant,
		}},
	}
}
