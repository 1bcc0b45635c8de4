package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
)

// Repository defines how static pass assets are obtained.
type Repository interface {
	Load(ctx context.Context) ([]pass.Asset, error)
}

// FSRepository reads template assets from an fs.FS.
type FSRepository struct {
	// fsys is the template root.
	fsys fs.FS
	// allowlist gates which paths become assets.
	allowlist pass.Allowlist
}

// ErrNoAssets is returned when no allowlisted file exists in the template.
var ErrNoAssets = errors.New("template has no allowlisted assets")

// NewFSRepository creates a repository over fsys filtered by allowlist.
func NewFSRepository(fsys fs.FS, allowlist pass.Allowlist) *FSRepository {
	return &FSRepository{
		fsys:      fsys,
		allowlist: allowlist,
	}
}

// NewDirRepository creates a repository over a directory on disk.
func NewDirRepository(dir string, allowlist pass.Allowlist) *FSRepository {
	return NewFSRepository(os.DirFS(filepath.Clean(dir)), allowlist)
}

// Load returns allowlisted regular files in lexical path order.
// Names outside the allowlist are skipped without error.
func (r *FSRepository) Load(ctx context.Context) ([]pass.Asset, error) {
	var assets []pass.Asset

	walk := func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if name == "." {
			return nil
		}

		if !r.allowlist.Allows(name) {
			logger.DebugKV(ctx, "Template entry skipped", "name", name)

			if entry.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		content, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return fmt.Errorf("read template asset %q: %w", name, err)
		}

		assets = append(assets, pass.Asset{
			Name:    name,
			Content: content,
		})

		return nil
	}

	if err := fs.WalkDir(r.fsys, ".", walk); err != nil {
		return nil, fmt.Errorf("walk template: %w", err)
	}

	if len(assets) == 0 {
		return nil, ErrNoAssets
	}

	logger.DebugKV(ctx, "Template loaded", "assets", len(assets))

	return assets, nil
}
