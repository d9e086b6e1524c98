package export

import (
	"github.com/lupine-engine/lupine/internal/core/bundle"
	"github.com/lupine-engine/lupine/internal/core/log"
)

func buildProjectBundle(logger log.Log, projectDir, outPath string) error {
	w := bundle.NewWriter(logger)
	if err := w.AddProject(projectDir); err != nil {
		return err
	}
	return w.CreateBundle(outPath)
}
