package e2e

import (
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions(10000)
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest runs before each test
func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) goTo(path string) {
	_, err := suite.page.Goto(appURL + path)
	require.NoError(suite.T(), err, "could not navigate to %s", path)
}

func (suite *E2ETestSuite) fill(selector, value string) {
	err := suite.page.Locator(selector).Fill(value)
	require.NoError(suite.T(), err, "failed to fill %s", selector)
}

func (suite *E2ETestSuite) login(username, password string) {
	suite.goTo("/login")

	err := suite.expect.Locator(suite.page.Locator("#login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")

	suite.fill("#username", username)
	suite.fill("#password", password)

	err = suite.page.Locator("#login-form button[type=submit]").Click()
	require.NoError(suite.T(), err, "failed to click login")

	err = suite.expect.Locator(suite.page.Locator("#response-message")).ToContainText("Login successful")
	require.NoError(suite.T(), err, "login message not shown")

	// Wait for redirect to the dashboard
	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/dashboard")
	require.NoError(suite.T(), err, "did not redirect to dashboard after login")
}

func (suite *E2ETestSuite) TestDashboardRequiresLogin() {
	suite.goTo("/dashboard")

	err := suite.expect.Page(suite.page).ToHaveURL(appURL + "/login")
	require.NoError(suite.T(), err, "anonymous visitor should land on the login page")

	err = suite.expect.Locator(suite.page.Locator("#login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")
}

func (suite *E2ETestSuite) TestRejectedLogin() {
	suite.goTo("/login")
	suite.fill("#username", adminUser)
	suite.fill("#password", "wrong-password")

	err := suite.page.Locator("#login-form button[type=submit]").Click()
	require.NoError(suite.T(), err, "failed to click login")

	err = suite.expect.Locator(suite.page.Locator("#response-message")).ToHaveText("Login failed: Invalid credentials")
	require.NoError(suite.T(), err, "rejection message mismatch")
}

func (suite *E2ETestSuite) TestRegisterThenLogin() {
	username := fmt.Sprintf("user%d", time.Now().UnixNano())

	suite.goTo("/register")
	suite.fill("#username", username)
	suite.fill("#email", username+"@example.com")
	suite.fill("#password", "pw123")

	err := suite.page.Locator("#registration-form button[type=submit]").Click()
	require.NoError(suite.T(), err, "failed to submit registration")

	err = suite.expect.Locator(suite.page.Locator("#response-message")).ToContainText("Registration successful")
	require.NoError(suite.T(), err, "registration message not shown")

	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/login")
	require.NoError(suite.T(), err, "did not redirect to login after registration")

	suite.login(username, "pw123")
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	suite.login(adminUser, adminPassword)

	suite.goTo("/add-expense")
	err := suite.expect.Locator(suite.page.Locator("#add-expense-form")).ToBeVisible()
	require.NoError(suite.T(), err, "expense form not visible")

	_, err = suite.page.Locator("#category").SelectOption(playwright.SelectOptionValues{
		Values: &[]string{"Food"},
	})
	require.NoError(suite.T(), err, "failed to select category")

	suite.fill("#amount", "12.50")
	suite.fill("#description", "Lunch Test")
	suite.fill("#date", "2024-01-01")

	err = suite.page.Locator("#add-expense-form button[type=submit]").Click()
	require.NoError(suite.T(), err, "failed to submit expense")

	err = suite.expect.Locator(suite.page.Locator("#response-message")).ToHaveText("Expense added successfully!")
	require.NoError(suite.T(), err, "expense confirmation not shown")

	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/dashboard")
	require.NoError(suite.T(), err, "did not return to dashboard")

	row := suite.page.Locator("#expenses-table tbody tr", playwright.PageLocatorOptions{HasText: "Lunch Test"})
	err = suite.expect.Locator(row).ToHaveCount(1)
	require.NoError(suite.T(), err, "expense row count mismatch")

	err = suite.expect.Locator(row.Locator("td.amount")).ToHaveText("12.50")
	require.NoError(suite.T(), err, "amount mismatch")

	err = suite.expect.Locator(row.Locator("td").Nth(3)).ToHaveText("2024-01-01")
	require.NoError(suite.T(), err, "date mismatch")
}

func (suite *E2ETestSuite) TestLogout() {
	suite.login(adminUser, adminPassword)

	err := suite.page.Locator("#logout-btn").Click()
	require.NoError(suite.T(), err, "failed to click logout")

	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/login")
	require.NoError(suite.T(), err, "did not land on login after logout")

	suite.goTo("/dashboard")
	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/login")
	require.NoError(suite.T(), err, "session should be gone after logout")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
