package observability

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorBold     = "\033[1m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// PrintBanner draws the startup header.
func PrintBanner() {
	banner := `
    __ __ __    __  ____       __    ____
   / //_// /   / / / __ \     / /   /  _/
  / ,<   / /_/ /  / / / / __  / /    / /
 / /| |  / __  /  / /_/ / / /_/ /  _/ /
/_/ |_| /_/ /_/   \____/  \____/  /___/

      >> DURABLE BROWSER RESEARCH <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// PrintSuccess draws the summary box after a successful run.
func PrintSuccess(summary string) {
	printBox("research complete", summary, colorNeonCyan)
}

// PrintFailure draws the failure box with the final error.
func PrintFailure(context string, err error) {
	printBox("research failed: "+context, err.Error(), colorNeonMag)
}

// PrintTally draws the scoreboard after a concurrent run settles.
func PrintTally(succeeded, failed int) {
	body := fmt.Sprintf("completed: %d    failed: %d    total: %d", succeeded, failed, succeeded+failed)
	color := colorNeonCyan
	if failed > 0 {
		color = colorPurple
	}
	printBox("stress run settled", body, color)
}

func printBox(title, body, color string) {
	width := clamp(termWidth(), 44, 96)
	inner := width - 4

	fmt.Println(color + "╔" + strings.Repeat("═", width-2) + "╗" + colorReset)
	for _, line := range wrapText(strings.ToUpper(title), inner) {
		fmt.Println(color + "║ " + colorBold + pad(line, inner) + colorReset + color + " ║" + colorReset)
	}
	fmt.Println(color + "╟" + strings.Repeat("─", width-2) + "╢" + colorReset)
	for _, line := range wrapText(body, inner) {
		fmt.Println(color + "║ " + colorReset + pad(line, inner) + color + " ║" + colorReset)
	}
	fmt.Println(color + "╚" + strings.Repeat("═", width-2) + "╝" + colorReset)
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}

func wrapText(s string, width int) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		// Paths and URLs can outgrow the box; hard-break them.
		for len(w) > width {
			words = append(words, w[:width])
			w = w[width:]
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}
