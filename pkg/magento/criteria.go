package magento

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	ConditionEq  = "eq"
	ConditionGt  = "gt"
	ConditionIn  = "in"
	ConditionNin = "nin"
)

// Filter 单个过滤条件，ConditionType 为空时按 eq 处理
type Filter struct {
	Field         string
	Value         string
	ConditionType string
}

// FilterGroup 组内条件为 OR，多个组之间为 AND
type FilterGroup []Filter

// SearchCriteria 对应 magento REST 的 searchCriteria 查询参数
type SearchCriteria struct {
	CurrentPage  int
	PageSize     int
	FilterGroups []FilterGroup
	StoreID      string
	CurrencyCode string
}

func (s *SearchCriteria) AddGroup(filters ...Filter) {
	s.FilterGroups = append(s.FilterGroups, FilterGroup(filters))
}

// Values 编码成 url 参数
func (s *SearchCriteria) Values() url.Values {
	q := url.Values{}
	page := s.CurrentPage
	if page <= 0 {
		page = 1
	}
	q.Set("searchCriteria[currentPage]", strconv.Itoa(page))
	if s.PageSize > 0 {
		q.Set("searchCriteria[pageSize]", strconv.Itoa(s.PageSize))
	}
	for g, group := range s.FilterGroups {
		for f, filter := range group {
			prefix := fmt.Sprintf("searchCriteria[filterGroups][%d][filters][%d]", g, f)
			cond := filter.ConditionType
			if cond == "" {
				cond = ConditionEq
			}
			q.Set(prefix+"[field]", filter.Field)
			q.Set(prefix+"[value]", filter.Value)
			q.Set(prefix+"[condition_type]", cond)
		}
	}
	if s.StoreID != "" {
		q.Set("storeId", s.StoreID)
	}
	if s.CurrencyCode != "" {
		q.Set("currencyCode", s.CurrencyCode)
	}
	return q
}

func (s *SearchCriteria) Encode() string {
	return s.Values().Encode()
}

// InFilter 多个 id 合成一个 in 条件
func InFilter(field string, ids []string) Filter {
	return Filter{Field: field, Value: strings.Join(ids, ","), ConditionType: ConditionIn}
}
