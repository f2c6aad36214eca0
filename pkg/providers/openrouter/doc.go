// Package openrouter implements the response generator on top of the
// OpenRouter chat-completions API (OpenAI-compatible).
//
// The client sends the Authorization bearer token and, when configured, the
// HTTP-Referer and X-Title attribution headers. Requests start with the
// ethical system prompt; follow-up requests replay the earlier user and
// assistant turns passed in the evaluation context.
//
// Example:
//
//	client, err := openrouter.New(openrouter.FromConfig(cfg.Generator))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	pipeline, err := compliance.New(compliance.Options{Store: store, Generator: client})
package openrouter
