package leaderboard

// Entry is one ranked row of the leaderboard
type Entry struct {
	Rank     int    `db:"-" json:"rank"`
	UserID   string `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Points   int    `db:"points" json:"points"`
	Exams    int    `db:"exams" json:"exams"`
}
