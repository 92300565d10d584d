package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

// DNS routes surface a not-found outcome distinctly from internal errors,
// unlike the device-search path which always degrades to empty data.

// handleResolve resolves a domain to its IP address.
func (s *Server) handleResolve(c *gin.Context) {
	domain := c.Param("domain")

	ip, err := s.provider.Resolve(c.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, shodan.ErrNotFound) {
			respondError(c, http.StatusNotFound, "could not resolve domain: "+domain)
			return
		}
		s.logger.Warnf("resolving %s failed: %v", domain, err)
		respondError(c, http.StatusInternalServerError, "error resolving domain: "+err.Error())
		return
	}
	if ip == "" {
		respondError(c, http.StatusNotFound, "could not resolve domain: "+domain)
		return
	}
	respondSuccess(c, gin.H{"domain": domain, "ip_addresses": ip})
}

// handleReverse performs reverse DNS lookups for comma-separated IPs.
func (s *Server) handleReverse(c *gin.Context) {
	ips := c.Query("ips")
	if ips == "" {
		respondError(c, http.StatusBadRequest, "ips query parameter is required")
		return
	}

	hostnames, err := s.provider.Reverse(c.Request.Context(), ips)
	if err != nil {
		s.logger.Warnf("reverse lookup failed for %s: %v", ips, err)
		respondError(c, http.StatusInternalServerError, "error performing reverse lookup: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"ip_hostnames": hostnames})
}

// handleDomainInfo returns the upstream's DNS knowledge of a domain.
func (s *Server) handleDomainInfo(c *gin.Context) {
	domain := c.Param("domain")

	info, err := s.provider.DomainInfo(c.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, shodan.ErrNotFound) {
			respondError(c, http.StatusNotFound, "no information found for domain: "+domain)
			return
		}
		s.logger.Warnf("domain info failed for %s: %v", domain, err)
		respondError(c, http.StatusInternalServerError, "error getting domain info: "+err.Error())
		return
	}
	if len(info) == 0 {
		respondError(c, http.StatusNotFound, "no information found for domain: "+domain)
		return
	}
	respondSuccess(c, gin.H{"info": info})
}
