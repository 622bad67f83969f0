package models

// UnassignedTeam is the bucket for participants without a team_name.
const UnassignedTeam = "Unassigned"

type TeamPlayer struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	GameID   *string `json:"game_id,omitempty"`
	GameName *string `json:"game_name,omitempty"`
}

type Team struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Players []TeamPlayer `json:"players"`
}

// GroupTeams buckets participants by team_name, collecting everyone
// without one under a single "Unassigned" team. Teams appear in
// first-seen order; player membership is exact.
func GroupTeams(participants []TournamentParticipant) []Team {
	index := make(map[string]int)
	teams := make([]Team, 0, len(participants))

	for _, p := range participants {
		name := p.TeamName
		if name == "" {
			name = UnassignedTeam
		}
		i, ok := index[name]
		if !ok {
			i = len(teams)
			index[name] = i
			teams = append(teams, Team{ID: name, Name: name})
		}
		player := TeamPlayer{ID: p.UserID}
		if p.User != nil {
			player.Username = p.User.Username
			player.GameID = p.User.GameID
			player.GameName = p.User.GameName
		}
		teams[i].Players = append(teams[i].Players, player)
	}
	return teams
}
