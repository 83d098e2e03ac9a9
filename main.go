// The main package for the syllabus executable.
package main

import "github.com/JakeFAU/syllabus-crawler/cmd"

func main() {
	cmd.Execute()
}
