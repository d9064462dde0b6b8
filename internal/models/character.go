// Character model definitions and methods

package models

type CharacterStatus string

const (
	CharacterAlive   CharacterStatus = "Alive"
	CharacterDead    CharacterStatus = "Dead"
	CharacterUnknown CharacterStatus = "unknown"
)

// Place is a named origin or location reference.
type Place struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Character struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Status   CharacterStatus `json:"status"`
	Species  string          `json:"species"`
	Type     string          `json:"type"`
	Gender   string          `json:"gender"`
	Origin   Place           `json:"origin"`
	Location Place           `json:"location"`
	Image    string          `json:"image"`
	Episode  []string        `json:"episode"`
	URL      string          `json:"url"`
	Created  string          `json:"created"`
}

type PageInfo struct {
	Count int     `json:"count"`
	Pages int     `json:"pages"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// Page is one page of results as returned by the character API.
type Page struct {
	Info    PageInfo    `json:"info"`
	Results []Character `json:"results"`
}
