package browser_tools

import (
	"context"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cfressle/webshelf/internal/auth"
	"github.com/cfressle/webshelf/internal/server"
)

func TestRegisterBrowserTools(t *testing.T) {
	sc := server.NewServerContext(context.Background(), auth.NewManager(nil, nil, nil), nil)
	defer sc.Shutdown()

	s := mcpserver.NewMCPServer("test", "0.0.1")
	if err := RegisterBrowserTools(s, sc); err != nil {
		t.Fatalf("RegisterBrowserTools() error = %v", err)
	}
}

func TestRequireString(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		key     string
		want    string
		wantErr bool
	}{
		{
			name: "present string",
			args: map[string]interface{}{"url": "https://example.com"},
			key:  "url",
			want: "https://example.com",
		},
		{
			name:    "missing key",
			args:    map[string]interface{}{},
			key:     "url",
			wantErr: true,
		},
		{
			name:    "empty string",
			args:    map[string]interface{}{"url": ""},
			key:     "url",
			wantErr: true,
		},
		{
			name:    "wrong type",
			args:    map[string]interface{}{"url": 42},
			key:     "url",
			wantErr: true,
		},
		{
			name:    "nil args",
			args:    nil,
			key:     "url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := requireString(tt.args, tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("requireString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("requireString() = %q, want %q", got, tt.want)
			}
		})
	}
}
