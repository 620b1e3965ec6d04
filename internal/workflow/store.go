package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/workflow/catalog"
)

// Store resolves workflow definitions from layered sources.
//
// Resolution order: project override file, then daemon-configured shared
// directories, then the built-in catalog. The project allow-list restricts
// the non-project sources; override files placed by the project are always
// visible. Parsed definitions are cached per (project, name) for the life
// of the process; a filesystem watcher invalidates cache entries when
// definition files change.
type Store struct {
	log        *logging.Logger
	searchDirs []string

	mu    sync.RWMutex
	cache map[cacheKey]*Definition

	// inv is nil when the filesystem watcher could not be created; the
	// store then serves possibly stale definitions until restart.
	inv *invalidator
}

type cacheKey struct {
	projectPath string // empty for shared definitions
	name        string
	source      Source
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSearchDirs adds shared workflow directories consulted between the
// project overrides and the built-in catalog, in order.
func WithSearchDirs(dirs []string) StoreOption {
	return func(s *Store) {
		s.searchDirs = dirs
	}
}

// NewStore creates a definition store.
func NewStore(log *logging.Logger, opts ...StoreOption) *Store {
	s := &Store{
		log:   log.Named("workflow"),
		cache: make(map[cacheKey]*Definition),
	}
	for _, opt := range opts {
		opt(s)
	}

	inv, err := newInvalidator(s.invalidateProject, s.log)
	if err != nil {
		s.log.Warn(context.Background(), "definition watching disabled, edits to workflow files need a restart",
			zap.Error(err))
	} else {
		s.inv = inv
		for _, dir := range s.searchDirs {
			if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
				continue
			}
			if watchErr := inv.Watch(dir, ""); watchErr != nil {
				s.log.Warn(context.Background(), "watching shared workflow directory failed",
					zap.String("dir", dir), zap.Error(watchErr))
			}
		}
	}
	return s
}

// Resolve returns the validated definition for the named workflow.
//
// Unknown names, names excluded by the project allow-list, and structural
// violations in the definition all surface as *ValidationError.
func (s *Store) Resolve(ctx context.Context, projectPath, name string) (*Definition, error) {
	projCfg, err := LoadProjectConfig(projectPath)
	if err != nil {
		return nil, err
	}
	if err := s.validateAllowList(projCfg, projectPath); err != nil {
		return nil, err
	}
	return s.resolve(ctx, projectPath, name, projCfg)
}

// List returns the workflows visible to the project: non-project sources
// passing the allow-list plus any project overrides, sorted by name.
func (s *Store) List(ctx context.Context, projectPath string) ([]Summary, error) {
	projCfg, err := LoadProjectConfig(projectPath)
	if err != nil {
		return nil, err
	}
	if err := s.validateAllowList(projCfg, projectPath); err != nil {
		return nil, err
	}

	names := s.availableNames(projectPath, projCfg)
	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		def, err := s.resolve(ctx, projectPath, name, projCfg)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, def.Summary())
	}
	return summaries, nil
}

// Close releases the filesystem watcher.
func (s *Store) Close() error {
	if s.inv == nil {
		return nil
	}
	return s.inv.Close()
}

func (s *Store) resolve(ctx context.Context, projectPath, name string, projCfg *ProjectConfig) (*Definition, error) {
	s.watchProject(ctx, projectPath)

	path, source := s.locate(projectPath, name)

	if source != SourceProject {
		if !projCfg.allows(name) {
			return nil, newValidationError(name, "", "",
				"not enabled for this project (enabled workflows: %s)",
				strings.Join(projCfg.EnabledWorkflows, ", "))
		}
		if source == SourceBuiltin && !catalog.Has(name) {
			return nil, newValidationError(name, "", "",
				"unknown workflow (available: %s)",
				strings.Join(s.availableNames(projectPath, projCfg), ", "))
		}
	}

	key := cacheKey{name: name, source: source}
	if source == SourceProject {
		key.projectPath = projectPath
	}

	s.mu.RLock()
	def, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}

	if source == SourceBuiltin {
		data, err := catalog.Read(name)
		if err != nil {
			return nil, newValidationError(name, "", "", "reading built-in definition: %v", err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, err
		}
		return s.store(ctx, key, def, source), nil
	}

	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if def.Name != name {
		return nil, newValidationError(name, "", "",
			"definition file %s declares name %q", path, def.Name)
	}
	return s.store(ctx, key, def, source), nil
}

// locate finds the highest-priority source for a name. Builtin is the
// fallback even when the catalog has no such entry; resolve reports that
// case with the available names.
func (s *Store) locate(projectPath, name string) (string, Source) {
	if path, ok := overridePath(projectPath, name); ok {
		return path, SourceProject
	}
	if path, ok := s.sharedPath(name); ok {
		return path, SourceShared
	}
	return "", SourceBuiltin
}

// sharedPath looks the name up in the configured search directories.
func (s *Store) sharedPath(name string) (string, bool) {
	for _, dir := range s.searchDirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

func (s *Store) store(ctx context.Context, key cacheKey, def *Definition, source Source) *Definition {
	def.Source = source

	s.mu.Lock()
	s.cache[key] = def
	s.mu.Unlock()

	s.log.Debug(ctx, "workflow definition loaded",
		zap.String("workflow", def.Name),
		zap.String("source", string(source)),
		zap.Int("states", len(def.States)))
	return def
}

// validateAllowList rejects allow-list entries that name no known
// workflow in any source.
func (s *Store) validateAllowList(projCfg *ProjectConfig, projectPath string) error {
	if !projCfg.restricts() {
		return nil
	}
	for _, name := range projCfg.EnabledWorkflows {
		if catalog.Has(name) {
			continue
		}
		if _, ok := s.sharedPath(name); ok {
			continue
		}
		if _, ok := overridePath(projectPath, name); ok {
			continue
		}
		return newValidationError(name, "", "",
			"unknown workflow in enabled_workflows (built-ins: %s)",
			strings.Join(catalog.Names(), ", "))
	}
	return nil
}

// availableNames returns the union of allow-listed built-ins, shared
// definitions, and project overrides, sorted and deduplicated.
func (s *Store) availableNames(projectPath string, projCfg *ProjectConfig) []string {
	seen := make(map[string]bool)
	var names []string

	add := func(name string, restricted bool) {
		if restricted && !projCfg.allows(name) {
			return
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range catalog.Names() {
		add(name, true)
	}
	for _, dir := range s.searchDirs {
		for _, name := range definitionNamesIn(dir) {
			add(name, true)
		}
	}
	for _, name := range definitionNamesIn(projectWorkflowsDir(projectPath)) {
		add(name, false)
	}

	sort.Strings(names)
	return names
}

// definitionNamesIn lists workflow names from definition files in a
// directory. Missing directories yield nothing.
func definitionNamesIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimSuffix(entry.Name(), ".yaml"), ".yml"))
	}
	return names
}

// watchProject registers the project's override directory with the
// invalidator. Safe to call repeatedly; missing directories are skipped.
func (s *Store) watchProject(ctx context.Context, projectPath string) {
	if s.inv == nil {
		return
	}
	dir := projectWorkflowsDir(projectPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	if err := s.inv.Watch(dir, projectPath); err != nil {
		s.log.Warn(ctx, "watching override directory failed",
			zap.String("dir", dir), zap.Error(err))
	}
}

// invalidateProject drops cached definitions for one project; the empty
// project path drops the shared entries.
func (s *Store) invalidateProject(projectPath string) {
	s.mu.Lock()
	removed := 0
	for key := range s.cache {
		if key.projectPath == projectPath {
			delete(s.cache, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Debug(context.Background(), "workflow cache invalidated",
			zap.String("project_path", projectPath),
			zap.Int("entries", removed))
	}
}
