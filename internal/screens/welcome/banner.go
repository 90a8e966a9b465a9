package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/ui/theme"
)

const bannerArt = `
  ██████╗ ██╗   ██╗██╗███████╗ ██████╗██████╗  █████╗ ███████╗████████╗
 ██╔═══██╗██║   ██║██║╚══███╔╝██╔════╝██╔══██╗██╔══██╗██╔════╝╚══██╔══╝
 ██║   ██║██║   ██║██║  ███╔╝ ██║     ██████╔╝███████║█████╗     ██║
 ██║▄▄ ██║██║   ██║██║ ███╔╝  ██║     ██╔══██╗██╔══██║██╔══╝     ██║
 ╚██████╔╝╚██████╔╝██║███████╗╚██████╗██║  ██║██║  ██║██║        ██║
  ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝        ╚═╝`

const bannerCompact = "Q U I Z C R A F T"

// bannerWidth is the widest line of bannerArt.
const bannerWidth = 72

// RenderBanner returns the banner styled in the primary color, falling back
// to spaced letters when the art does not fit.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < bannerWidth {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
