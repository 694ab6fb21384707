package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
)

const exportPrefix = "ecodrone_casualties_"

// ExportHeader is the fixed first row of the casualties CSV.
var ExportHeader = []string{"ID", "X_Coordinate", "Y_Coordinate", "Confidence"}

// Casualties returns the dead detections in backend order.
func Casualties(result *model.AnalysisResult) []model.PitDetail {
	if result == nil {
		return nil
	}
	return lo.Filter(result.Details, func(d model.PitDetail, _ int) bool {
		return d.Status == model.PitDead
	})
}

// ExportCasualties writes the header and one row per dead detection and
// returns the number of data rows written.
func ExportCasualties(w io.Writer, result *model.AnalysisResult) (int, error) {
	if result == nil {
		return 0, fmt.Errorf("no analysis result to export")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, err
	}

	rows := Casualties(result)
	for _, d := range rows {
		record := []string{
			string(d.ID),
			strconv.FormatFloat(d.X, 'f', -1, 64),
			strconv.FormatFloat(d.Y, 'f', -1, 64),
			strconv.FormatFloat(d.Confidence, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ExportFilename names an export by its generation time.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("%s%d.csv", exportPrefix, utils.EpochMillis(now))
}
