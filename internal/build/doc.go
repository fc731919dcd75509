// Package build turns recipes into package archives.
//
// A [Builder] owns a work directory, where each recipe gets its own build
// directory, and a repository directory, where finished archives are stored.
// [Builder.Make] runs the pipeline for one recipe:
//
//  1. The build directory is claimed. If it already exists the configured
//     [ConflictFunc] decides whether to cancel, remove it, or keep it.
//  2. Sources are fetched once into the shared src directory, verified
//     against their checksums and extracted.
//  3. For every selected architecture, the sources are copied to a private
//     working copy, then prepared on the host, built inside the recipe's
//     container image, and stripped of debugging symbols.
//  4. Every selected package is staged on the host by its package function
//     and written to the repository as an ipk archive whose timestamps all
//     equal the recipe's timestamp.
//
// Stages run strictly in sequence and the first failure ends the call. Script
// output is logged line by line in debug mode; otherwise the last lines are
// kept and printed only if the script fails.
//
// Example usage:
//
//	b, err := build.New(build.Options{
//	    WorkDir:    "work",
//	    RepoDir:    "repo",
//	    Containers: rt,
//	    OnConflict: build.Always(build.ConflictRemove),
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := b.Make(ctx, generic, map[string][]string{"rm1": {"draft"}})
//	if err != nil {
//	    return err
//	}
//	for _, path := range result.Archives {
//	    fmt.Println(path)
//	}
package build
