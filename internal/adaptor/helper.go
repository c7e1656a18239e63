package adaptor

import (
	"net/url"

	"marketplace-api/internal/dto/request"
	"marketplace-api/pkg/utils"
)

func parseProductQuery(q url.Values) *request.ProductListRequest {
	return &request.ProductListRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(q.Get("page"), 1),
			PerPage: utils.ParseInt(q.Get("limit"), request.DefaultPerPage),
		},
		Category:  q.Get("category"),
		Condition: q.Get("condition"),
		MinPrice:  utils.ParseFloatPtr(q.Get("minPrice")),
		MaxPrice:  utils.ParseFloatPtr(q.Get("maxPrice")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}
