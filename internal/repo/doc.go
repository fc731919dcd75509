// Package repo maintains the package repository: a flat directory of
// archives and the index describing them.
//
// A [Repo] loads every recipe from a recipe directory and compares the
// packages they declare against the archives present in the repository.
// [Repo.FetchPackages] reports which packages are missing, after optionally
// probing or downloading them from a remote mirror, grouped by recipe and
// architecture in the shape expected by the builder. [Repo.MakeIndex] writes
// the Packages and Packages.gz index files for the archives actually present.
//
// Example usage:
//
//	r, err := repo.New("package", "build/repo", repo.Options{})
//	if err != nil {
//	    return err
//	}
//
//	missing, err := r.FetchPackages(ctx, "https://toltec-dev.org/testing", true)
//	if err != nil {
//	    return err
//	}
//	for _, name := range missing.Recipes() {
//	    if _, err := builder.Make(ctx, r.Recipe(name), missing[name]); err != nil {
//	        return err
//	    }
//	}
//
//	if err := r.MakeIndex(); err != nil {
//	    return err
//	}
package repo
