package ollama

import "github.com/productsheet/backend/internal/domain"

// generateRequest is the /api/generate payload
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse holds the fields we read from /api/generate; the rest of
// the reply is ignored.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// tagsResponse is the /api/tags payload
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// toGenerateRequest converts a domain request to the wire payload. Streaming
// is always disabled because the pipeline consumes whole replies.
func toGenerateRequest(req domain.ModelRequest) generateRequest {
	return generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Options.Temperature,
			TopP:        req.Options.TopP,
			NumPredict:  req.Options.NumPredict,
			Stop:        req.Options.Stop,
		},
	}
}

func fromGenerateResponse(resp generateResponse) domain.ModelReply {
	return domain.ModelReply{Response: resp.Response}
}

func modelNames(tags tagsResponse) []string {
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names
}
