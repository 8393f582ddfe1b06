package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user does not exist")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
}

type RepoImpl struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO user (uid, username, display_name, timezone, currency) VALUES (?, ?, ?, ?, ?)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("%w: could not prepare query: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, user.Uid, user.Username, user.DisplayName, user.Settings.Timezone, user.Settings.Currency)
	if err != nil {
		err := fmt.Errorf("%w: could not execute query: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("%w: could not retrieve last insert id: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	return int(lastInsertID), nil
}

func (r *RepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, uid, username, display_name, timezone, currency FROM user WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *RepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT id, uid, username, display_name, timezone, currency FROM user WHERE uid = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, uid))
}

func (r *RepoImpl) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.Id, &user.Uid, &user.Username, &user.DisplayName, &user.Settings.Timezone, &user.Settings.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		err := fmt.Errorf("%w: could not scan user: %v", database.ErrStorage, err)
		log.Error(err)
		return User{}, err
	}
	return user, nil
}

func (r *RepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	query := `SELECT id, uid, username, display_name, timezone, currency FROM user ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("%w: could not query users: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.Id, &user.Uid, &user.Username, &user.DisplayName, &user.Settings.Timezone, &user.Settings.Currency); err != nil {
			err := fmt.Errorf("%w: could not scan user: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("%w: error iterating over rows: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	return users, nil
}

func (r *RepoImpl) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	query := `SELECT COUNT(1) FROM user WHERE username = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&count); err != nil {
		err := fmt.Errorf("%w: could not check username: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	return count > 0, nil
}
