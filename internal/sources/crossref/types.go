package crossref

// WorksResponse is the envelope of a works search.
type WorksResponse struct {
	Message WorksMessage `json:"message"`
}

// WorksMessage carries the matched works and the total hit count.
type WorksMessage struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// WorkResponse is the envelope of a single-work fetch.
type WorkResponse struct {
	Message Work `json:"message"`
}

// Work is the subset of a CrossRef work record this service reads.
type Work struct {
	DOI            string    `json:"DOI"`
	Title          []string  `json:"title"`
	Author         []Author  `json:"author"`
	Issued         DateParts `json:"issued"`
	ContainerTitle []string  `json:"container-title"`
	Publisher      string    `json:"publisher"`
	Subject        []string  `json:"subject"`
	Abstract       string    `json:"abstract"`
}

// Author is a CrossRef contributor name.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// DateParts is CrossRef's nested date encoding, [[year, month, day]].
// Trailing components may be absent.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component, or 0 when the date is absent.
func (d DateParts) Year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}
