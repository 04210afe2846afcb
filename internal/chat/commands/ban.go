package commands

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/kcchat/server/internal/model"
)

// banDurationUnits maps a trailing unit suffix to its length in
// seconds, matching the original ban-timeframe grammar exactly.
var banDurationUnits = map[byte]int64{
	'y': 31536000,
	'd': 86400,
	'h': 3600,
	'm': 60,
	's': 1,
}

// banUntil resolves a ban duration string (as given to !ban/!ipban) to
// an absolute banned_until unix-seconds value. An empty raw means a
// permanent ban, stored as the literal model.PermanentBan sentinel
// (not now-relative) so it stays stable regardless of when it's
// evaluated. Otherwise raw is first tried as a plain integer count of
// seconds relative to now; failing that, as an integer followed by one
// of y/d/h/m/s (case-insensitive), also relative to now.
func banUntil(raw string, now int64) (int64, error) {
	if raw == "" {
		return model.PermanentBan, nil
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return now + secs, nil
	}

	if len(raw) < 2 {
		return 0, fmt.Errorf("Failed to parse ban timeframe: %q", raw)
	}

	unit := strings.ToLower(raw[len(raw)-1:])[0]
	factor, ok := banDurationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("Failed to parse ban timeframe: %q", raw)
	}

	amount, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("Failed to parse ban timeframe: %q", raw)
	}

	return now + amount*factor, nil
}
