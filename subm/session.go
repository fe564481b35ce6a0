package subm

import "fmt"

const BoardALevels = "A Levels"

var sessionLabels = map[string]string{
	"specimen": "Specimen",
	"feb-mar":  "Feb / Mar",
	"may-june": "May / June",
	"oct-nov":  "Oct / Nov",
}

// SessionLabel maps a session form value to its display label. Unknown
// values are returned unchanged.
func SessionLabel(session string) string {
	if label, ok := sessionLabels[session]; ok {
		return label
	}
	return session
}

// DisplayYear is the year stored for a yearly paper: A Levels papers with a
// session get the session label appended, e.g. "2023 (May / June)".
func DisplayYear(board, year, session string) string {
	if board == BoardALevels && session != "" {
		return fmt.Sprintf("%s (%s)", year, SessionLabel(session))
	}
	return year
}
