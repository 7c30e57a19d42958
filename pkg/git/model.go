package gitutils

import "time"

//Commit is the revision of a scanned code base at the time its reports are delivered
type Commit struct {
	Hash    string
	Branch  string // empty on a detached HEAD
	Author  string
	Message string
	Time    time.Time
}

//Short is the abbreviated hash
func (c Commit) Short() string {
	if len(c.Hash) > 12 {
		return c.Hash[:12]
	}
	return c.Hash
}
