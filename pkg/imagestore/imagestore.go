// Package imagestore keeps product and profile pictures on the local
// filesystem, one file per entity id, and resolves them to URL paths served
// by the router's static mount.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	KindProducts = "products"
	KindUsers    = "users"
)

type Store struct {
	root string
	log  *logrus.Logger
}

func New(root string, logger *logrus.Logger) (*Store, error) {
	for _, kind := range []string{KindProducts, KindUsers} {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("could not create image directory for %s: %w", kind, err)
		}
	}
	return &Store{root: root, log: logger}, nil
}

// Save stores the picture for the given entity, replacing any previous one
// regardless of extension, and returns the URL path it will be served under.
func (s *Store) Save(kind string, id int, ext string, data []byte) (string, error) {
	if ext == "" || !strings.HasPrefix(ext, ".") {
		ext = ".img"
	}
	if err := s.Remove(kind, id); err != nil {
		return "", err
	}
	name := strconv.Itoa(id) + strings.ToLower(ext)
	path := filepath.Join(s.root, kind, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write image %s: %w", path, err)
	}
	s.log.Debugf("Image store: saved %s/%s", kind, name)
	return "/data/images/" + kind + "/" + name, nil
}

// URL returns the serving path of the stored picture, or "" when there is
// none.
func (s *Store) URL(kind string, id int) string {
	name := s.find(kind, id)
	if name == "" {
		return ""
	}
	return "/data/images/" + kind + "/" + name
}

// Remove deletes any stored picture for the entity. Removing a picture that
// was never stored is a no-op.
func (s *Store) Remove(kind string, id int) error {
	name := s.find(kind, id)
	if name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, kind, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove image %s/%s: %w", kind, name, err)
	}
	return nil
}

func (s *Store) find(kind string, id int) string {
	prefix := strconv.Itoa(id) + "."
	entries, err := os.ReadDir(filepath.Join(s.root, kind))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return e.Name()
		}
	}
	return ""
}
