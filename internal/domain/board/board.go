package board

// Entry is one row of the individual leaderboard: a person and the number
// of distinct queries they surfaced in.
type Entry struct {
	ID              string
	FirstName       string
	LastName        string
	Image           *string
	College         *string
	Year            *int
	AppearanceCount int
}

// CollegeEntry is one row of the college leaderboard.
type CollegeEntry struct {
	College          string
	TotalAppearances int
	UniqueMembers    int
}

// Stats summarizes leaderboard contents.
type Stats struct {
	UniqueQueries    int
	UniquePeople     int
	TotalAppearances int
}
