package ipcheck

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/ipcheck-mcp/server"
)

// LookupInput is the declared input schema for the ipcheck tool.
type LookupInput struct {
	Format string `json:"format,omitempty" jsonschema:"description=Output format: text or json,enum=text,enum=json,default=text"`
}

const resultPrefix = "Server IP information from ifconfig.me:\n"

// Register wires the ipcheck tool and prompt onto the server. The tool
// validates its input against the declared schema, so a bad format is
// rejected before the handler, and therefore before any network call.
func Register(srv *server.Server, client *Client) error {
	tool := srv.Tool("ipcheck").
		Description("Checks the server's public IP address by querying ifconfig.me.").
		ValidateInput().
		Handler(func(ctx context.Context, input LookupInput) (string, error) {
			body, err := client.Lookup(ctx, Format(input.Format))
			if err != nil {
				return "", asProtocolError(err)
			}
			return resultPrefix + body, nil
		})
	if err := tool.Err(); err != nil {
		return err
	}

	srv.Prompt("ipcheck").
		Description("Ask for the server's public IP address.").
		Handler(func(ctx context.Context, _ map[string]string) (*server.PromptResult, error) {
			text := "The server's public IP address is: "
			body, err := client.Lookup(ctx, FormatText)
			if err != nil {
				// Prompts degrade softly: the failure is reported in the
				// message instead of as a protocol error.
				text = "Failed to fetch IP address: " + err.Error()
			} else {
				text += body
			}

			return &server.PromptResult{
				Description: "Server IP Address",
				Messages: []server.PromptMessage{
					{
						Role: "user",
						Content: server.TextContent{
							Type: "text",
							Text: text,
						},
					},
				},
			}, nil
		})

	return nil
}

func asProtocolError(err error) error {
	var ipErr *Error
	if errors.As(err, &ipErr) {
		return ipErr.Protocol()
	}
	return err
}
