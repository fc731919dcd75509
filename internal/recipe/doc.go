// Package recipe loads build recipes and models their structure.
//
// A recipe directory holds a recipe.yaml file and any local source files it
// references. Loading it yields a [GenericRecipe] owning one [Recipe] per
// supported architecture, each owning the [Package] values built for that
// architecture. Back-references (Package.Parent, Recipe.Parent) are lookups
// only. The tree is read-only once loaded.
//
// Package identity is derived from the tree: the archive file name depends
// only on the package name, its version and the architecture, so rebuilding
// the same recipe always targets the same file.
//
// Example usage:
//
//	generic, err := recipe.Load("package/draft")
//	if err != nil {
//	    return err
//	}
//	for _, arch := range generic.Archs {
//	    for _, pkg := range generic.Recipes[arch].PackageList() {
//	        fmt.Println(pkg.Filename())
//	    }
//	}
package recipe
