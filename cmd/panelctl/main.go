// Command panelctl runs the live panel placement loop headless and drives
// the calibration workflow: simulate or record sessions, replay them under
// alternative tunings, and render reports.
package main

func main() {
	Execute()
}
