package domain

// OutcomeOK labels a resolution that produced a result, in audit records and
// metrics alike. Failed resolutions are labeled with their error type.
const OutcomeOK = "ok"

// Identity is a handle resolved to its canonical upstream identifier. The ID
// is kept in string form so identifiers wider than 53 bits survive intact.
type Identity struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
}

// Resolution is the result of one full pipeline run: the resolved identity
// and the handles it follows, in upstream order, duplicates preserved.
type Resolution struct {
	Identity   Identity `json:"identity"`
	Followings []string `json:"followings"`
}
