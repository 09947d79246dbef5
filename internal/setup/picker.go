package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
)

// PickAsset asks for an asset from the catalog. The window select is shown only
// when askWindow is set; otherwise days is returned unchanged.
func PickAsset(days int, askWindow bool) (assetID string, window int, err error) {
	options := make([]huh.Option[string], 0, len(domain.Assets()))
	for _, a := range domain.Assets() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", a.Name, a.Ticker), a.ID))
	}

	window = days
	fields := []huh.Field{
		huh.NewSelect[string]().
			Title("Asset").
			Options(options...).
			Height(10).
			Value(&assetID),
	}
	if askWindow {
		fields = append(fields, huh.NewSelect[int]().
			Title("Window").
			Options(
				huh.NewOption("30 days", domain.Window30d.Days()),
				huh.NewOption("7 days", domain.Window7d.Days()),
				huh.NewOption("90 days", domain.Window90d.Days()),
			).
			Value(&window))
	}

	fmt.Println(headerStyle.Render("CRYPTO RISK CHECK"))
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", 0, err
	}

	return assetID, window, nil
}
