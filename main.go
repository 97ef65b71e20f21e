// Command electionjson converts election results tables into the JSON tree
// served to the results front end.
package main

import "github.com/brensch/electionjson/cmd"

func main() {
	cmd.Execute()
}
