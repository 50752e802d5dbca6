package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1
)

type CacheRouter struct {
	CacheTime int // defaults to CacheNoCache = 0
	// Shared caches (proxies, CDN) may keep the response too
	Public bool
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	scope := "private"
	if cr.Public {
		scope = "public"
	}
	return func(c *gin.Context) {
		if cr.CacheTime != CacheCustom {
			if cr.CacheTime == CacheNoCache {
				c.Header("cache-control", "no-cache")
			} else {
				c.Header("cache-control", scope+", max-age="+strconv.Itoa(cr.CacheTime))
			}
		}
		c.Next()
	}
}
