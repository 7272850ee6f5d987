package constants

// veriface response codes
// these consist of 4 digit numbers
//
// the 1st 3 are randomly generated but represent specific scenarios
// 4th indicates if the response requires user interactions through a dialog box. 0 means it does not require. 1 means it requires.

var VERIFICATION_PASSED uint = 2210    // verification succeeded, proceed
var VERIFICATION_REJECTED uint = 2241  // show the rejection reasons and ask the user to retry capture
var ENROLLMENT_COMPLETED uint = 2310   // reference face stored for the user
var ENROLLMENT_REJECTED uint = 2341    // reference image unusable, ask for a better capture

var SUPPORT_EMAIL = "help@veriface.io"

var MAX_HISTORY_PAGE_SIZE int64 = 100
