// Package server provides the tool and prompt registry for the ipcheck
// MCP server.
//
// Registrations use a fluent builder API and happen once at startup;
// the populated Server is then passed to the transport loop. Most users
// should use the higher-level ipcheckmcp package instead of using this
// package directly.
//
// # Tools
//
//	type LookupInput struct {
//	    Format string `json:"format" jsonschema:"enum=text,enum=json,default=text"`
//	}
//
//	srv.Tool("ipcheck").
//	    Description("Checks the server's public IP address.").
//	    ValidateInput().
//	    Handler(func(ctx context.Context, input LookupInput) (string, error) {
//	        return lookup(ctx, input.Format)
//	    })
//
// # Prompts
//
//	srv.Prompt("ipcheck").
//	    Description("Check the server's public IP address").
//	    Handler(func(ctx context.Context, args map[string]string) (*PromptResult, error) {
//	        return &PromptResult{
//	            Messages: []PromptMessage{{Role: "user", Content: TextContent{Type: "text", Text: "..."}}},
//	        }, nil
//	    })
package server
