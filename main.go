package main

import "github.com/jtorrescarbajal/nhanes-diabetes-case-study/cmd"

func main() {
	cmd.Execute()
}
