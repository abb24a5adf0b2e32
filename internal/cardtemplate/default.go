package cardtemplate

// Default returns the built-in corporate template.
func Default() Template {
	return Template{
		ID:   "corporate",
		Name: "Corporate",
		Palette: &Palette{
			Primary:   "#1f3a68",
			Secondary: "#e8eef7",
			Text:      "#1a1a1a",
			Accent:    "#d4a017",
		},
		Front: &Side{
			Background: "#ffffff",
			Layout:     "portrait-classic",
			Shapes: []Shape{
				{Kind: ShapeRect, X: 0, Y: 0, W: 153, H: 40, Color: "#1f3a68", Fill: true},
				{Kind: ShapeLine, X: 0, Y: 40, X2: 153, Y2: 40, Color: "#d4a017", StrokeWidth: 1.5},
				{Kind: ShapeRect, X: 51.5, Y: 49, W: 50, H: 62, Color: "#1f3a68", StrokeWidth: 0.75},
				{Kind: ShapeRect, X: 0, Y: 232, W: 153, H: 12, Color: "#1f3a68", Fill: true},
			},
			NameStyle:       &TextStyle{X: 76.5, Y: 124, Size: 11, Weight: "bold", Color: "#1a1a1a", Align: "center"},
			EmployeeIDStyle: &TextStyle{X: 76.5, Y: 138, Size: 8, Weight: "normal", Color: "#1f3a68", Align: "center"},
			Details: &DetailsStyle{
				TextStyle:  TextStyle{X: 16, Y: 156, Size: 6.5, Weight: "normal", Color: "#1a1a1a", Align: "left"},
				LineHeight: 12,
			},
			Photo: &PhotoFrame{X: 52.5, Y: 50},
		},
		Back: &Side{
			Background: "#e8eef7",
			Layout:     "portrait-classic",
			Shapes: []Shape{
				{Kind: ShapeRect, X: 0, Y: 0, W: 153, H: 24, Color: "#1f3a68", Fill: true},
				{Kind: ShapeCircle, X: 76.5, Y: 80, R: 22, Color: "#1f3a68", StrokeWidth: 1.5},
				{Kind: ShapeRect, X: 0, Y: 232, W: 153, H: 12, Color: "#1f3a68", Fill: true},
			},
			Texts: []StaticText{
				{Text: "If found, please return to", Style: TextStyle{X: 76.5, Y: 130, Size: 6.5, Color: "#1a1a1a", Align: "center"}},
				{Text: "Human Resources", Style: TextStyle{X: 76.5, Y: 142, Size: 7.5, Weight: "bold", Color: "#1f3a68", Align: "center"}},
				{Text: "This card remains company property.", Style: TextStyle{X: 76.5, Y: 200, Size: 5.5, Color: "#1a1a1a", Align: "center"}},
			},
		},
	}
}
