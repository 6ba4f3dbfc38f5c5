package engagement

import "fmt"

// Aggregate annotates every entry with the view of viewerID, preserving input
// order. An empty viewerID is the anonymous viewer: nothing is marked as liked
// or bookmarked but counts are still reported.
func Aggregate(entries []Entry, viewerID string) []Item {
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, Item{Post: e.Post, View: ViewOf(e, viewerID)})
	}
	return out
}

func ViewOf(e Entry, viewerID string) View {
	return View{
		IsLiked:       containsUser(e.Likes, viewerID),
		LikeCount:     len(e.Likes),
		IsBookmarked:  containsUser(e.Bookmarks, viewerID),
		BookmarkCount: len(e.Bookmarks),
	}
}

func containsUser(rs []Relation, userID string) bool {
	if userID == "" {
		return false
	}
	for _, r := range rs {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// CheckRelations reports the first relation whose post id does not match the
// post it is attached to.
func CheckRelations(entries []Entry) error {
	for _, e := range entries {
		for _, set := range []struct {
			kind Kind
			rs   []Relation
		}{{Like, e.Likes}, {Bookmark, e.Bookmarks}} {
			for _, r := range set.rs {
				if r.PostID != e.Post.ID {
					return fmt.Errorf("%w: %s %s belongs to post %q, attached to %q",
						ErrMalformedRelation, set.kind, r.ID, r.PostID, e.Post.ID)
				}
			}
		}
	}
	return nil
}
