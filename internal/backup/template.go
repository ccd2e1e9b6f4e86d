package backup

import (
	"encoding/base64"
	"fmt"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
)

// onePixelPNG is a 1x1 PNG used for the template's image assets.
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+P+/HgAFhAJ/wlseKgAAAABJRU5ErkJggg=="

// GenerateTemplate writes a demonstration bundle to dest: one resistor, one
// project using two of them, and placeholder asset files.
func (e *Engine) GenerateTemplate(dest string) (*bundle.WriteResult, error) {
	png, err := base64.StdEncoding.DecodeString(onePixelPNG)
	if err != nil {
		return nil, fmt.Errorf("decode template image: %w", err)
	}

	now := e.now()
	meta := bundle.NewMetadata(now)
	meta.Inventory = []bundle.InventoryRecord{{
		ID:             1001,
		Category:       "Resistor",
		Name:           "Example Resistor",
		Value:          "10k 1%",
		Package:        "0805",
		Quantity:       500,
		Location:       "Box-A-01",
		MinStock:       50,
		ImagePaths:     assets.PathList{"example_resistor.png"},
		DatasheetPaths: assets.PathList{"datasheet.pdf"},
	}}
	meta.Projects = []bundle.ProjectRecord{{
		ID:          2001,
		Name:        "Demo Project (LED Blinker)",
		Description: "This is a sample project to show how import works.",
		CreatedAt:   now.UTC().Format("2006-01-02 15:04:05"),
		Files:       assets.PathList{"schematic.pdf", "design_draft.png", "requirements.docx"},
	}}
	meta.Links = []bundle.ProjectLink{{ProjectID: 2001, InventoryID: 1001, Quantity: 2}}

	files := []bundle.AssetFile{
		{RelPath: "example_resistor.png", Data: png},
		{RelPath: "datasheet.pdf", Data: []byte("Dummy PDF Content")},
		{RelPath: "schematic.pdf", Data: []byte("Dummy Schematic")},
		{RelPath: "design_draft.png", Data: png},
		{RelPath: "requirements.docx", Data: []byte("Dummy Word Doc")},
	}

	res, err := bundle.Write(dest, meta, files)
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	e.logger.Info("template written", "path", res.Path)
	return res, nil
}
