// sentinel — browser security decision core.
// Scores URLs for phishing signals and manages the persistent policy
// store behind navigation and credential-submission decisions.
package main

import "github.com/ppiankov/sentinel/internal/cli"

func main() {
	cli.Execute()
}
