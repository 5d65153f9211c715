package archive

import (
	"time"

	"github.com/newssaga/sagaengine/pkg/model"
)

// Shanghai is the publication time zone of the daily digest. It has no DST.
var Shanghai = time.FixedZone("Asia/Shanghai", 8*60*60)

// CutoverHour is the local hour from which the same day's digest is available
const CutoverHour = 20

// TargetDate returns the YYYYMMDD date whose digest should be processed at now:
// the previous day before 20:00 Shanghai time, the same day after.
func TargetDate(now time.Time) string {
	local := now.In(Shanghai)
	if local.Hour() < CutoverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(model.DateLayout)
}
