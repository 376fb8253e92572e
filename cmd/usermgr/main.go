package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/models"
)

var appVersion = "-unset-"

const minPasswordLength = 6

func main() {
	config.AppVersion = appVersion
	log.Printf("go-volontulo User Manager (version: %s)", config.AppVersion)
	var (
		configFile  = flag.String("config", "", "Path to a config file, see volontulo-web -help")
		createUser  = flag.Bool("create", false, "Create a new user with profile")
		listUsers   = flag.Bool("list", false, "List all users")
		deleteUser  = flag.Bool("delete", false, "Delete a user")
		updateUser  = flag.Bool("update", false, "Update a user's password")
		setAdmin    = flag.Bool("set-admin", false, "Grant or revoke the administrator flag (use with -admin)")
		createOrg   = flag.Bool("create-org", false, "Create an organization (-name, -address, -description)")
		listOrgs    = flag.Bool("list-orgs", false, "List all organizations")
		addMember   = flag.Bool("add-member", false, "Add -username to organization -org")
		rmMember    = flag.Bool("remove-member", false, "Remove -username from organization -org")
		deleteOrg   = flag.Bool("delete-org", false, "Delete organization -org with its offers")
		setContact  = flag.Bool("set-contact", false, "Change -email and/or -phone of -username")
		revokeAll   = flag.Bool("revoke-tokens", false, "Revoke every REST token of -username")
		offerStatus = flag.String("offer-status", "", "Moderate offer -offer: unpublished, published or rejected")
		username    = flag.String("username", "", "Username for user operations")
		email       = flag.String("email", "", "Email for user creation (default: username)")
		firstName   = flag.String("first", "", "First name for user creation")
		lastName    = flag.String("last", "", "Last name for user creation")
		phone       = flag.String("phone", "", "Phone number for user creation")
		admin       = flag.Bool("admin", false, "Administrator flag for -create and -set-admin")
		orgName     = flag.String("name", "", "Organization name")
		orgAddress  = flag.String("address", "", "Organization address")
		orgDesc     = flag.String("description", "", "Organization description")
		orgID       = flag.Int64("org", 0, "Organization ID")
		offerID     = flag.Int64("offer", 0, "Offer ID")
	)
	flag.Parse()

	if !*createUser && !*listUsers && !*deleteUser && !*updateUser && !*setAdmin &&
		!*createOrg && !*listOrgs && !*addMember && !*rmMember && !*deleteOrg &&
		!*setContact && !*revokeAll && *offerStatus == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -username jan@example.com -first Jan -last Kowalski\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -create -username admin@example.com -admin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -create-org -name \"Fundacja\" -address \"Warszawa\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -add-member -org 1 -username jan@example.com\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -set-contact -username jan@example.com -phone 600100200\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -offer-status published -offer 3\n", os.Args[0])
		os.Exit(1)
	}

	mainConfig, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	dbConfig := database.DefaultDBConfig()
	dbConfig.DataDir = mainConfig.Database.DataDir
	dbConfig.CleanupInterval = 0

	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	switch {
	case *createUser:
		if *username == "" {
			log.Fatal("Username is required for user creation")
		}
		if *email == "" {
			*email = *username
		}
		password, err := readNewPassword("Enter password: ")
		if err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		u := &models.User{Username: *username, Email: *email, FirstName: *firstName, LastName: *lastName}
		if err := createNewUser(db, u, password, *admin, *phone); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}

	case *listUsers:
		if err := listAllUsers(db); err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}

	case *deleteUser:
		if *username == "" {
			log.Fatal("Username is required for user deletion")
		}
		if err := deleteExistingUser(db, *username); err != nil {
			log.Fatalf("Failed to delete user: %v", err)
		}

	case *updateUser:
		if *username == "" {
			log.Fatal("Username is required for user update")
		}
		password, err := readNewPassword(fmt.Sprintf("Enter new password for '%s': ", *username))
		if err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
		if err := updateUserPassword(db, *username, password); err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}

	case *setAdmin:
		if *username == "" {
			log.Fatal("Username is required for -set-admin")
		}
		if err := setAdministrator(db, *username, *admin); err != nil {
			log.Fatalf("Failed to update administrator flag: %v", err)
		}

	case *createOrg:
		org := &models.Organization{Name: *orgName, Address: *orgAddress, Description: *orgDesc}
		if err := createOrganization(db, org); err != nil {
			log.Fatalf("Failed to create organization: %v", err)
		}

	case *listOrgs:
		if err := listOrganizations(db); err != nil {
			log.Fatalf("Failed to list organizations: %v", err)
		}

	case *addMember:
		if err := addOrganizationMember(db, *orgID, *username); err != nil {
			log.Fatalf("Failed to add member: %v", err)
		}

	case *rmMember:
		if err := removeOrganizationMember(db, *orgID, *username); err != nil {
			log.Fatalf("Failed to remove member: %v", err)
		}

	case *deleteOrg:
		if err := deleteOrganization(db, *orgID, bufio.NewReader(os.Stdin)); err != nil {
			log.Fatalf("Failed to delete organization: %v", err)
		}

	case *setContact:
		if err := updateContact(db, *username, *email, *phone); err != nil {
			log.Fatalf("Failed to update contact data: %v", err)
		}

	case *revokeAll:
		if err := revokeTokens(db, *username); err != nil {
			log.Fatalf("Failed to revoke tokens: %v", err)
		}

	case *offerStatus != "":
		if err := moderateOffer(db, *offerID, *offerStatus); err != nil {
			log.Fatalf("Failed to change offer status: %v", err)
		}
	}
}

// readNewPassword asks for a password twice without echoing it
func readNewPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if string(password) != string(confirmPassword) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hashedPassword), nil
}

func createNewUser(db *database.Database, u *models.User, password string, isAdmin bool, phone string) error {
	if _, err := db.GetUserByUsername(u.Username); err == nil {
		return fmt.Errorf("user '%s' already exists", u.Username)
	}
	if _, err := db.GetUserByEmail(u.Email); err == nil {
		return fmt.Errorf("email '%s' already exists", u.Email)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	profile, err := db.CreateUser(u, isAdmin, phone)
	if err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	if isAdmin {
		fmt.Printf("✅ Granted administrator flag to '%s'\n", u.Username)
	}
	fmt.Printf("✅ User '%s' created successfully (user ID: %d, profile ID: %d)\n", u.Username, u.ID, profile.ID)
	return nil
}

func listAllUsers(db *database.Database) error {
	users, err := db.GetAllUsers()
	if err != nil {
		return fmt.Errorf("failed to get users: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("Found %d users:\n\n", len(users))
	fmt.Printf("%-4s %-6s %-30s %-20s %s\n", "ID", "Admin", "Username", "Name", "Organizations")
	fmt.Printf("%-4s %-6s %-30s %-20s %s\n", "----", "-----", "--------", "----", "-------------")

	for _, u := range users {
		adminMark := "no"
		var orgs []string
		if p, err := db.GetProfileByUserID(u.ID); err == nil {
			if p.IsAdministrator {
				adminMark = "yes"
			}
			for _, o := range p.Organizations {
				orgs = append(orgs, fmt.Sprintf("%d:%s", o.ID, o.Name))
			}
		} else {
			adminMark = "-"
		}
		fmt.Printf("%-4d %-6s %-30s %-20s %s\n",
			u.ID,
			adminMark,
			truncate(u.Username, 30),
			truncate(u.FullName(), 20),
			strings.Join(orgs, ", "),
		)
	}
	return nil
}

func deleteExistingUser(db *database.Database, username string) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	fmt.Printf("Are you sure you want to delete user '%s' (ID: %d)? [y/N]: ", username, user.ID)
	if !confirm(bufio.NewReader(os.Stdin)) {
		fmt.Println("User deletion cancelled")
		return nil
	}

	if err := db.DeleteUser(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	fmt.Printf("✅ User '%s' (ID: %d) deleted\n", user.Username, user.ID)
	return nil
}

func updateUserPassword(db *database.Database, username, password string) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := db.UpdateUserPassword(user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}
	fmt.Printf("✅ Password updated successfully for user '%s'\n", username)
	return nil
}

func setAdministrator(db *database.Database, username string, isAdmin bool) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	if err := db.SetAdministrator(user.ID, isAdmin); err != nil {
		return err
	}
	fmt.Printf("✅ Administrator flag of '%s' set to %t\n", username, isAdmin)
	return nil
}

func createOrganization(db *database.Database, org *models.Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	if err := db.CreateOrganization(org); err != nil {
		return err
	}
	fmt.Printf("✅ Organization '%s' created (ID: %d)\n", org.Name, org.ID)
	return nil
}

func listOrganizations(db *database.Database) error {
	orgs, err := db.GetAllOrganizations()
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Println("No organizations found")
		return nil
	}
	fmt.Printf("%-4s %-30s %s\n", "ID", "Name", "Address")
	for _, o := range orgs {
		fmt.Printf("%-4d %-30s %s\n", o.ID, truncate(o.Name, 30), o.Address)
	}
	return nil
}

func addOrganizationMember(db *database.Database, orgID int64, username string) error {
	if orgID <= 0 || username == "" {
		return fmt.Errorf("-org and -username are required")
	}
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	profile, err := db.GetProfileByUserID(user.ID)
	if err != nil {
		return fmt.Errorf("profile of '%s' not found: %v", username, err)
	}
	if err := db.AddOrganizationMember(orgID, profile.ID); err != nil {
		return err
	}
	fmt.Printf("✅ '%s' is now a member of organization %d\n", username, orgID)
	return nil
}

func removeOrganizationMember(db *database.Database, orgID int64, username string) error {
	if orgID <= 0 || username == "" {
		return fmt.Errorf("-org and -username are required")
	}
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	profile, err := db.GetProfileByUserID(user.ID)
	if err != nil {
		return fmt.Errorf("profile of '%s' not found: %v", username, err)
	}
	if err := db.RemoveOrganizationMember(orgID, profile.ID); err != nil {
		return err
	}
	fmt.Printf("✅ '%s' is no longer a member of organization %d\n", username, orgID)
	return nil
}

func deleteOrganization(db *database.Database, orgID int64, answer *bufio.Reader) error {
	org, err := db.GetOrganizationByID(orgID)
	if err != nil {
		return fmt.Errorf("organization %d not found", orgID)
	}

	fmt.Printf("Delete organization '%s' (ID: %d) and all its offers? [y/N]: ", org.Name, org.ID)
	if !confirm(answer) {
		fmt.Println("Organization deletion cancelled")
		return nil
	}

	if err := db.DeleteOrganization(org.ID); err != nil {
		return err
	}
	fmt.Printf("✅ Organization '%s' (ID: %d) deleted\n", org.Name, org.ID)
	return nil
}

// updateContact changes the e-mail and/or phone number; empty values are left alone
func updateContact(db *database.Database, username, email, phone string) error {
	if username == "" || (email == "" && phone == "") {
		return fmt.Errorf("-username and -email or -phone are required")
	}
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	if email != "" {
		if other, err := db.GetUserByEmail(email); err == nil && other.ID != user.ID {
			return fmt.Errorf("email '%s' already exists", email)
		}
		if err := db.UpdateUserEmail(user.ID, email); err != nil {
			return fmt.Errorf("failed to update email: %v", err)
		}
		fmt.Printf("✅ Email of '%s' set to %s\n", username, email)
	}
	if phone != "" {
		if err := db.UpdatePhoneNo(user.ID, phone); err != nil {
			return fmt.Errorf("failed to update phone number: %v", err)
		}
		fmt.Printf("✅ Phone number of '%s' set to %s\n", username, phone)
	}
	return nil
}

func revokeTokens(db *database.Database, username string) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("user '%s' not found", username)
	}
	n, err := db.DeleteUserTokens(user.ID)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Revoked %d token(s) of '%s'\n", n, username)
	return nil
}

func moderateOffer(db *database.Database, offerID int64, status string) error {
	if !models.IsChoice(status, models.OfferStatusChoices) {
		return fmt.Errorf("invalid status %q, expected one of %s", status, strings.Join(models.OfferStatusChoices, ", "))
	}
	if offerID <= 0 {
		return fmt.Errorf("-offer is required")
	}
	if err := db.SetOfferStatus(offerID, status); err != nil {
		return err
	}
	fmt.Printf("✅ Offer %d is now %s\n", offerID, status)
	return nil
}

// confirm reads a y/yes answer
func confirm(r *bufio.Reader) bool {
	response, _ := r.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
