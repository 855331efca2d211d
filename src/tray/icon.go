package tray

import "fyne.io/fyne/v2"

// SVG content for the tray and window icon: a dashed selection around a
// translation glyph.
const SVGContent = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="1.5" width="13" height="13" rx="1" fill="none" stroke="#0078d4" stroke-width="1.2" stroke-dasharray="2,1"/>
  <text x="3" y="9" font-family="sans-serif" font-size="6" font-weight="bold" fill="#333333">A</text>
  <path d="M7.5 7.5 h2 m-0.8 -0.8 l0.8 0.8 l-0.8 0.8" fill="none" stroke="#666666" stroke-width="0.7"/>
  <text x="9.5" y="13" font-family="sans-serif" font-size="6" font-weight="bold" fill="#d83b01">文</text>
</svg>`

// Icon is SVGContent as a fyne resource.
var Icon = fyne.NewStaticResource("screen-translate.svg", []byte(SVGContent))
