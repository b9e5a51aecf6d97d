package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	OtpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_otp_requests_total",
			Help: "Total number of OTP issuance attempts.",
		},
		[]string{"service", "result"},
	)

	OtpVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_otp_verifications_total",
			Help: "Total number of OTP verification attempts.",
		},
		[]string{"service", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of access tokens issued or refreshed.",
		},
		[]string{"service", "flow", "result"},
	)

	SessionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_session_conflicts_total",
			Help: "Total number of logins rejected by the single-device policy.",
		},
	)

	SessionsRevokedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sessions_revoked_total",
			Help: "Total number of refresh tokens deleted, by scope.",
		},
		[]string{"service", "scope"},
	)

	ExpiredRowsPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_expired_rows_purged_total",
			Help: "Total number of expired rows removed by the sweeper.",
		},
		[]string{"service", "table"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	OtpRequestsTotal = OtpRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	OtpVerificationsTotal = OtpVerificationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	TokensIssuedTotal = TokensIssuedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	SessionsRevokedTotal = SessionsRevokedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	ExpiredRowsPurgedTotal = ExpiredRowsPurgedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		OtpRequestsTotal,
		OtpVerificationsTotal,
		TokensIssuedTotal,
		SessionConflictsTotal,
		SessionsRevokedTotal,
		ExpiredRowsPurgedTotal,
	)
}
