package product

type Product struct {
	ID    int64
	Title string
	Price float64
	Image string
}
