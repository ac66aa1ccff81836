package seed

import (
	"context"
	_ "embed"

	"github.com/harlowe/clientdesk/internal/workspace"
)

//go:embed demo.yaml
var demoFixture []byte

// LoadDemo seeds the built-in demo data set.
func LoadDemo(ctx context.Context, ws *workspace.Workspace) (int, error) {
	return Load(ctx, ws, demoFixture)
}
