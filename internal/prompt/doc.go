// Package prompt asks the user to pick one of a fixed set of options.
//
// Example usage:
//
//	answer, err := prompt.Ask(os.Stdin, os.Stderr, prompt.Query{
//	    Message: "Workspace exists. Cancel, remove or keep it?",
//	    Default: "c",
//	    Options: []string{"c", "r", "k"},
//	    Aliases: map[string]string{"cancel": "c", "remove": "r", "keep": "k"},
//	})
//	if err != nil {
//	    return err
//	}
package prompt
