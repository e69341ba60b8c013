package dto

// OllamaOptions tunes one Ollama generation request.
type OllamaOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// OllamaGenerateRequest is the request payload for the Ollama /api/generate endpoint.
type OllamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options OllamaOptions `json:"options"`
}

// OllamaGenerateResponse is the non-streaming response from /api/generate.
type OllamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaTagsResponse is the response from /api/tags listing installed models.
type OllamaTagsResponse struct {
	Models []OllamaModelTag `json:"models"`
}

// OllamaModelTag describes one installed model.
type OllamaModelTag struct {
	Name string `json:"name"`
}
