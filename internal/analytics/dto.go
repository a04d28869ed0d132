package analytics

// MostBorrowedEntry ranks a book by how often it has been borrowed.
type MostBorrowedEntry struct {
	BookID      int    `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	BorrowCount int64  `json:"borrow_count"`
}

// MonthlyTrendEntry counts loans opened in one calendar month.
type MonthlyTrendEntry struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// CategoryCountEntry counts loans per book category.
type CategoryCountEntry struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
