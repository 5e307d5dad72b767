package feedbot

import "github.com/rapidos-social/go-rapidos/service/persist"

type welcomeQuery struct {
	Viewer      persist.Viewer
	Welcomed    bool
	PersonaSize int
	PostCount   int
}

type followUpQuery struct {
	Viewer persist.Viewer
	Target persist.Post
}

var welcomeCriteria = []func(welcomeQuery) bool{viewerIsHuman, notWelcomedThisSession, hasPersonas, feedIsEmpty}

var followUpCriteria = []func(followUpQuery) bool{targetIsValid, targetNotByViewer}

func passes[Q any](q Q, criteria []func(Q) bool) bool {
	for _, c := range criteria {
		if !c(q) {
			return false
		}
	}
	return true
}

func viewerIsHuman(q welcomeQuery) bool {
	return q.Viewer.ID != "" && !q.Viewer.IsBot
}

func notWelcomedThisSession(q welcomeQuery) bool {
	return !q.Welcomed
}

func hasPersonas(q welcomeQuery) bool {
	return q.PersonaSize > 0
}

func feedIsEmpty(q welcomeQuery) bool {
	return q.PostCount == 0
}

func targetIsValid(q followUpQuery) bool {
	return q.Viewer.ID != "" && q.Target.ID != ""
}

// no replying to yourself
func targetNotByViewer(q followUpQuery) bool {
	return q.Target.Author.ID != q.Viewer.ID
}
