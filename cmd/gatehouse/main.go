// Command gatehouse runs the admission control service.
package main

func main() {
	Execute()
}
