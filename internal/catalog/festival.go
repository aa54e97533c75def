package catalog

const squadNote = "IMPORTANT: This is a squad-based event. "

var festival = []Definition{
	{
		ID: TechTreasure, Name: "Tech Treasure", Mode: Team, Fee: 50, MinTeamSize: 2, MaxTeamSize: 2,
		CommunityLink: "https://chat.whatsapp.com/Ee7oNF4JvkwKuIdomRRxpj",
		Category:      Quiz,
		Description:   "Solve technical puzzles and clues to discover the hidden treasure.",
		Prize:         "₹3000",
	},
	{
		ID: BGMI, Name: "BGMI", Mode: Team, Fee: 100, MinTeamSize: 4, MaxTeamSize: 4,
		CommunityLink: "https://chat.whatsapp.com/Busn9D6I7wa14z5VbI8W4A",
		Category:      Gaming,
		Description:   "Compete in the ultimate battleground to prove your gaming skills.",
		Prize:         "₹5000",
	},
	{
		ID: BGMISolo, Name: "BGMI(Solo)", Mode: Individual, Fee: 30, MinTeamSize: 1,
		CommunityLink: "https://chat.whatsapp.com/Busn9D6I7wa14z5VbI8W4A",
		Category:      Gaming,
		Description:   "Compete in the ultimate battleground to prove your gaming skills.",
		Prize:         "Cash Prize",
		Note: squadNote + "You will be teamed up with a squad of other solo participants. " +
			"Please be aware that match outcome depends on squad coordination; joining means you accept being placed in a squad.",
	},
	{
		ID: TechShow, Name: "Tech Show", Mode: Team, Fee: 50, MinTeamSize: 1, MaxTeamSize: 2,
		CommunityLink: "https://chat.whatsapp.com/LoMClqq4vGa90vNYV2IDt7",
		Category:      Innovation,
		Description:   "Showcase your latest tech projects, prototypes, or research ideas.",
		Prize:         "Google Certificates",
	},
	{
		ID: StartupBid, Name: "Startup Bid", Mode: Team, Fee: 100, MinTeamSize: 1, MaxTeamSize: 4,
		CommunityLink: "https://chat.whatsapp.com/HypSXtHqVcY18mKmKBcIdZ",
		Category:      Entrepreneurship,
		Description:   "Pitch your startup idea and win support from investors and mentors.",
		Prize:         "Google Certificates",
	},
	{
		ID: PosterMaking, Name: "Poster Making", Mode: Individual, Fee: 25, MinTeamSize: 1,
		CommunityLink: "https://chat.whatsapp.com/Lt04XGiL4E7L83yMVAOFgN",
		Category:      Design,
		Description:   "Create innovative and creative posters on technology or social themes.",
		Prize:         "₹1000",
	},
	{
		ID: TechQuiz, Name: "Tech Quiz", Mode: Individual, Fee: 25, MinTeamSize: 1,
		CommunityLink: "https://chat.whatsapp.com/F0YqBqx65x69tTzd1ASrpL",
		Category:      Quiz,
		Description:   "Challenge your technical knowledge in a battle of wits and logic.",
		Prize:         "₹2500",
	},
	{
		ID: Tekken7, Name: "Tekken 7", Mode: Individual, Fee: 50, MinTeamSize: 1,
		CommunityLink: "https://chat.whatsapp.com/CMuQzhMFln6KsXRHVCly8M",
		Category:      Gaming,
		Description:   "Show your fighting skills in an electrifying Tekken 7 tournament.",
		Prize:         "₹2000",
	},
	{
		ID: CodeRelay, Name: "Code Relay", Mode: Team, Fee: 50, MinTeamSize: 2, MaxTeamSize: 2,
		CommunityLink: "https://chat.whatsapp.com/CC17GJQQ6buDc00EGDBOr2",
		Category:      Coding,
		Description:   "Solve coding challenges and algorithms in this competitive event.",
		Prize:         "₹3000",
	},
	{
		ID: FreeFire, Name: "Free Fire", Mode: Team, Fee: 100, MinTeamSize: 4, MaxTeamSize: 4,
		CommunityLink: "https://chat.whatsapp.com/Ief26wFIkgTHVJF1x7qaU5",
		Category:      Gaming,
		Description:   "Compete for glory in this intense Free Fire tournament.",
		Prize:         "₹3000",
	},
	{
		ID: FreeFireSolo, Name: "Free Fire(Solo)", Mode: Individual, Fee: 30, MinTeamSize: 1,
		CommunityLink: "https://chat.whatsapp.com/Ief26wFIkgTHVJF1x7qaU5",
		Category:      Gaming,
		Description:   "Compete for glory in this intense Free Fire tournament.",
		Prize:         "Cash Prize",
		Note: squadNote + "You will be placed into a squad with other solo participants. " +
			"Make sure you are comfortable playing in a team and communicating with squad-mates.",
	},
}

// Default returns the festival's event catalog.
func Default() *Catalog {
	c, err := New(festival...)
	if err != nil {
		panic("catalog: festival definitions: " + err.Error())
	}
	return c
}

// FilterOption is one entry of the catalog view's filter bar.
type FilterOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Filters lists the category filters in display order.
func Filters() []FilterOption {
	return []FilterOption{
		{ID: FilterAll, Label: "All Events"},
		{ID: string(Coding), Label: "Coding"},
		{ID: string(Quiz), Label: "Tech Quiz & Treasure"},
		{ID: string(Gaming), Label: "Gaming"},
		{ID: string(Design), Label: "Design"},
		{ID: string(Innovation), Label: "Innovation & Exhibition"},
		{ID: string(Entrepreneurship), Label: "Startup & Business"},
	}
}
