package repo

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/metrics"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Configures a [Repo].
type Options struct {
	Logger     *slog.Logger     // Destination of progress messages, defaults to slog.Default.
	Recorder   metrics.Recorder // Metrics sink, defaults to a no-op recorder.
	HTTPClient *http.Client     // Client for the remote mirror, defaults to http.DefaultClient.
}

// Recipes and the directory holding their archives.
type Repo struct {
	recipeDir string
	repoDir   string
	recipes   map[string]*recipe.GenericRecipe
	logger    *slog.Logger
	recorder  metrics.Recorder
	client    *http.Client
}

// Packages missing from the repository, by recipe name then architecture.
// Recipes and architectures without missing packages are absent.
type Missing map[string]map[string][]string

// Returns the recipe names in sorted order.
func (m Missing) Recipes() []string {
	return slices.Sorted(maps.Keys(m))
}

// Returns the total number of missing packages.
func (m Missing) Count() int {
	n := 0
	for _, archs := range m {
		for _, names := range archs {
			n += len(names)
		}
	}
	return n
}

// Loads every recipe below recipeDir. Any malformed recipe aborts loading.
func New(recipeDir, repoDir string, opts Options) (*Repo, error) {
	recipes, err := recipe.LoadAll(recipeDir)
	if err != nil {
		return nil, err
	}

	r := &Repo{
		recipeDir: recipeDir,
		repoDir:   repoDir,
		recipes:   recipes,
		logger:    logging.Ensure(opts.Logger),
		recorder:  metrics.Ensure(opts.Recorder),
		client:    opts.HTTPClient,
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	return r, nil
}

// Returns the named recipe, or nil.
func (r *Repo) Recipe(name string) *recipe.GenericRecipe {
	return r.recipes[name]
}

// Returns the recipe names in sorted order.
func (r *Repo) RecipeNames() []string {
	return slices.Sorted(maps.Keys(r.recipes))
}

// Calls fn for every package of every recipe: recipes by name, architectures
// in declaration order, packages by name.
func (r *Repo) eachPackage(fn func(g *recipe.GenericRecipe, rec *recipe.Recipe, pkg *recipe.Package) error) error {
	for _, name := range r.RecipeNames() {
		g := r.recipes[name]
		for _, arch := range g.Archs {
			rec := g.Recipe(arch)
			for _, pkg := range rec.PackageList() {
				if err := fn(g, rec, pkg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
