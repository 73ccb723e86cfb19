// Command adbtool validates pattern files and extracts fields from log
// lines with them.
package main

func main() {
	Execute()
}
