// Command corefollow runs reactor time-domain operations from a case file.
package main

func main() {
	Execute()
}
