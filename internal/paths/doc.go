// Provides default locations for the build workspace, the package store and
// the recipe tree.
//
// The workspace and the store follow XDG conventions on Linux and
// platform-native conventions on macOS. The program name "cruxpkg" is used as
// the subdirectory under each base path. Recipes default to a directory
// relative to the current working directory, since they usually live in a
// source checkout.
package paths
