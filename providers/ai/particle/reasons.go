package particle

// EndReason says why a generation ended.
type EndReason string

const (
	EndAbortClient        EndReason = "abort-client"
	EndDoneDialect        EndReason = "done-dialect"
	EndDoneDispatchClosed EndReason = "done-dispatch-closed"
	EndIssueDialect       EndReason = "issue-dialect"
	EndIssueRPC           EndReason = "issue-rpc"
)

// TokenStopReason is the canonical reason the model stopped producing tokens.
type TokenStopReason string

const (
	StopOK                TokenStopReason = "ok"
	StopOKToolInvocations TokenStopReason = "ok-tool_invocations"
	StopOutOfTokens       TokenStopReason = "out-of-tokens"
	StopFilterContent     TokenStopReason = "filter-content"
	StopFilterRecitation  TokenStopReason = "filter-recitation"
	StopIssue             TokenStopReason = "cg-issue"
	StopClientAbort       TokenStopReason = "client-abort"
)

// IssueID classifies an issue particle.
type IssueID string

const (
	IssueDispatchPrepare IssueID = "dispatch-prepare"
	IssueDispatchFetch   IssueID = "dispatch-fetch"
	IssueDispatchRead    IssueID = "dispatch-read"
	IssueDispatchParse   IssueID = "dispatch-parse"
	IssueDialect         IssueID = "dialect-issue"
	IssueClientRead      IssueID = "client-read"
)
