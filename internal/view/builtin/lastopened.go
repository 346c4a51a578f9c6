package builtin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tailscale/hujson"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/view"
)

// DefaultWorkspaceFile is where Obsidian keeps its workspace state.
const DefaultWorkspaceFile = ".obsidian/workspace.json"

// LastOpenedOptions configures the recently opened list.
type LastOpenedOptions struct {
	WorkspaceFile string `yaml:"workspace_file" json:"workspace_file"`
	// Limit caps the number of entries listed (0 means all).
	Limit int `yaml:"limit" json:"limit"`
}

// Validate validates the options.
func (o *LastOpenedOptions) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.WorkspaceFile, validation.By(relativeDir)),
		validation.Field(&o.Limit, validation.Min(0)),
	)
}

type workspaceState struct {
	LastOpenFiles []string `json:"lastOpenFiles"`
}

func lastOpenedView() view.View {
	return view.View{
		Name:       LastOpenedName,
		Render:     renderLastOpened,
		NewOptions: func() view.Options { return &LastOpenedOptions{} },
	}
}

func renderLastOpened(c *view.Context) (string, error) {
	opts, _ := c.Options.(*LastOpenedOptions)
	if opts == nil {
		opts = &LastOpenedOptions{}
	}
	subpath := opts.WorkspaceFile
	if subpath == "" {
		subpath = DefaultWorkspaceFile
	}

	refs, err := LastOpened(c, subpath)
	if err != nil {
		return "", err
	}
	if opts.Limit > 0 && len(refs) > opts.Limit {
		refs = refs[:opts.Limit]
	}
	if len(refs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("\n\n\n----\n\n**Last Opened**")
	for _, ref := range refs {
		b.WriteString("\n- ")
		b.WriteString(ref.String())
	}
	return b.String(), nil
}

// LastOpened reads the workspace file found under subpath and returns its
// recently opened entries that still exist.
func LastOpened(c *view.Context, subpath string) ([]models.DocRef, error) {
	rel, err := c.Store.Find(subpath)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("lastOpened: %w: %s", apperr.ErrNoWorkspace, subpath)
	}
	if err != nil {
		return nil, fmt.Errorf("lastOpened: find workspace: %w", err)
	}

	data, err := c.Store.Read(rel)
	if err != nil {
		return nil, fmt.Errorf("lastOpened: read %s: %w", rel, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("lastOpened: parse %s: %w", rel, err)
	}
	var ws workspaceState
	if err := json.Unmarshal(std, &ws); err != nil {
		return nil, fmt.Errorf("lastOpened: decode %s: %w", rel, err)
	}

	var refs []models.DocRef
	for _, p := range ws.LastOpenFiles {
		if p == "" || !c.Store.IsFile(p) {
			continue
		}
		refs = append(refs, models.NewDocRef(p))
	}
	return refs, nil
}
