package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by kind.
	EdgeTaken     string // if-test taken
	EdgeNotTaken  string // if-test fallthrough
	EdgeNormal    string // goto, fallthrough, switch arms, invokes
	EdgeException string // into a catch handler

	// Node accents.
	EntryBorder   string
	TermFill      string // return or throw
	DeadFill      string // unreachable blocks
	HandlerBorder string // catch handler entries
	ExternalText  string // counts, subtitles, classes outside the batch
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken:     "#0B3D91", // NASA blue
	EdgeNotTaken:  "#FC3D21", // NASA red
	EdgeNormal:    "#424242", // dark gray
	EdgeException: "#E65100", // deep orange

	EntryBorder:   "#0B3D91",
	TermFill:      "#ECEFF1", // blue-gray 50
	DeadFill:      "#E0E0E0",
	HandlerBorder: "#E65100",
	ExternalText:  "#9E9E9E",
}
