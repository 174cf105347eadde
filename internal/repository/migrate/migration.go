// Package migrate creates and removes the DynamoDB tables the application
// needs. Each migration owns one table; the runner applies them in order and
// skips tables that already exist.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

const tableWaitTimeout = 5 * time.Minute

type Migration interface {
	Version() string
	TableName() string
	Up(ctx context.Context, client *dynamodb.Client) error
	Down(ctx context.Context, client *dynamodb.Client) error
}

// Tables names the tables the migrations create.
type Tables struct {
	Photos            string
	Tokens            string
	Parties           string
	PartiesEmailIndex string
}

// All returns the migrations in apply order.
func All(tables Tables) []Migration {
	return []Migration{
		&CreatePhotosTable{Name: tables.Photos},
		&CreateLoginTokensTable{Name: tables.Tokens},
		&CreatePartyMembersTable{Name: tables.Parties, EmailIndex: tables.PartiesEmailIndex},
	}
}

// Up applies every migration whose table does not exist yet.
func Up(ctx context.Context, client *dynamodb.Client, migrations []Migration) error {
	for _, m := range migrations {
		exists, err := tableExists(ctx, client, m.TableName())
		if err != nil {
			return err
		}
		if exists {
			log.Infof("Table %s already exists, skipping %s", m.TableName(), m.Version())
			continue
		}

		log.Infof("Applying migration %s", m.Version())
		if err := m.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version(), err)
		}
	}
	return nil
}

// Down rolls back migrations in reverse order.
func Down(ctx context.Context, client *dynamodb.Client, migrations []Migration) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		exists, err := tableExists(ctx, client, m.TableName())
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		log.Infof("Rolling back migration %s", m.Version())
		if err := m.Down(ctx, client); err != nil {
			return fmt.Errorf("rollback %s failed: %w", m.Version(), err)
		}
	}
	return nil
}

func tableExists(ctx context.Context, client *dynamodb.Client, tableName string) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to describe table %s: %w", tableName, err)
}

func waitForTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, tableWaitTimeout)
}

func deleteTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return err
	}

	waiter := dynamodb.NewTableNotExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, tableWaitTimeout)
}
